// Package metadata builds NFT metadata documents. Pure: no network
// access, fully deterministic given an address and seed.
package metadata

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pbtc21/bitcoinfaces/types"
)

// Builder templates metadata URLs from the generator's public base URL
// (e.g. "https://bitcoinfaces.xyz").
type Builder struct {
	imageBase string
}

func NewBuilder(imageBase string) *Builder {
	return &Builder{imageBase: strings.TrimSuffix(imageBase, "/")}
}

// ImageURL returns the rendered-face URL for an address.
func (b *Builder) ImageURL(address string) string {
	return fmt.Sprintf("%s/api/get-image?name=%s", b.imageBase, address)
}

// ExternalURL returns the public gallery URL for an address.
func (b *Builder) ExternalURL(address string) string {
	return fmt.Sprintf("%s/img/%s", b.imageBase, address)
}

// Build produces the metadata for an address. The "Hash Seed"
// attribute is present only when a non-empty seed is supplied.
func (b *Builder) Build(address string, seed []int) types.Metadata {
	suffix := address
	if len(suffix) > 8 {
		suffix = suffix[len(suffix)-8:]
	}

	attributes := []types.Attribute{
		{TraitType: "Source", Value: "Stacks Address"},
		{TraitType: "Address", Value: address},
	}
	if len(seed) > 0 {
		attributes = append(attributes, types.Attribute{
			TraitType: "Hash Seed",
			Value:     joinSeed(seed),
		})
	}

	return types.Metadata{
		Name:        fmt.Sprintf("Bitcoin Face #%s", suffix),
		Description: fmt.Sprintf("A unique Bitcoin Face generated from Stacks address %s", address),
		Image:       b.ImageURL(address),
		ExternalURL: b.ExternalURL(address),
		Attributes:  attributes,
	}
}

func joinSeed(seed []int) string {
	parts := make([]string, len(seed))
	for i, n := range seed {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
