package filesource

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Submitter deliveries follow fixed naming patterns: pedigree records
// are *.ped (or *.ped.cip when delivered encrypted), phenotype packets
// are *.json. Known-corrupt packets are excluded by name through a
// curated deny-list.

// DiscoverPedigrees lists the pedigree files under prefix.
func DiscoverPedigrees(ctx context.Context, c Client, prefix string) ([]Entry, error) {
	entries, err := c.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range entries {
		if strings.HasSuffix(e.Name, ".ped") || strings.HasSuffix(e.Name, ".ped.cip") {
			out = append(out, e)
		}
	}
	return out, nil
}

// DiscoverPhenotypePackets lists the phenotype packets under prefix,
// skipping any name on the deny-list.
func DiscoverPhenotypePackets(ctx context.Context, c Client, prefix string, denyList []string) ([]Entry, error) {
	entries, err := c.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	denied := map[string]bool{}
	for _, name := range denyList {
		denied[name] = true
	}
	var out []Entry
	for _, e := range entries {
		if !strings.HasSuffix(e.Name, ".json") {
			continue
		}
		if denied[e.Name] {
			log.WithField("file", e.Name).Warn("Skipping deny-listed phenotype packet")
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
