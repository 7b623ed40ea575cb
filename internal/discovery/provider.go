// Package discovery finds the tests the manager can run.
package discovery

import (
	"context"
	"errors"
	"fmt"

	"testmgr/internal/domain"
)

// ErrNoBody is the failure of a test that was discovered without an executable body.
var ErrNoBody = errors.New("test has no registered body")

// Descriptor describes a discovered test.
type Descriptor = domain.Descriptor

// Provider discovers tests.
type Provider interface {
	Discover(ctx context.Context) ([]Descriptor, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) ([]Descriptor, error)

// Discover implements Provider.
func (f ProviderFunc) Discover(ctx context.Context) ([]Descriptor, error) {
	return f(ctx)
}

type merged struct {
	providers []Provider
}

// Merge combines providers into one. Descriptors with the same identity are folded into one:
// for each attribute the first provider that sets it wins. The order of first appearance is kept.
// A failing provider contributes nothing; the others are still merged and the failures are
// returned joined together with the result.
func Merge(providers ...Provider) Provider {
	return &merged{providers: providers}
}

func (m *merged) Discover(ctx context.Context) ([]Descriptor, error) {
	var (
		out  []Descriptor
		errs []error
	)
	index := make(map[domain.TestID]int)

	for _, p := range m.providers {
		found, err := p.Discover(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("discover tests: %w", err))
			continue
		}
		for _, d := range found {
			i, ok := index[d.ID]
			if !ok {
				index[d.ID] = len(out)
				out = append(out, d)
				continue
			}
			out[i] = fill(out[i], d)
		}
	}
	return out, errors.Join(errs...)
}

func fill(dst, src Descriptor) Descriptor {
	if dst.Path == "" {
		dst.Path = src.Path
	}
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Timeout == 0 {
		dst.Timeout = src.Timeout
	}
	if dst.Resource.IsZero() {
		dst.Resource = src.Resource
	}
	if dst.Source == "" {
		dst.Source = src.Source
	}
	if dst.Body == nil {
		dst.Body = src.Body
	}
	if dst.Setup == nil {
		dst.Setup = src.Setup
	}
	if dst.Teardown == nil {
		dst.Teardown = src.Teardown
	}
	return dst
}
