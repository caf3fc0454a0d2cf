// Package fixtures seeds a catalog from YAML so that a fresh in-memory
// instance has something to rent.
package fixtures

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"stagerent/internal/app/commands"
	"stagerent/internal/app/handlers/availability"
	"stagerent/internal/app/handlers/catalog"
	"stagerent/internal/app/principal"
	domaincatalog "stagerent/internal/domain/catalog"
	"stagerent/internal/domain/shared/daterange"
)

type Catalog struct {
	Products []Product `yaml:"products"`
}

type Product struct {
	ID         string  `yaml:"id"`
	Title      string  `yaml:"title"`
	Category   string  `yaml:"category"`
	DailyRate  int64   `yaml:"daily_rate"`
	Currency   string  `yaml:"currency"`
	BufferDays *int    `yaml:"buffer_days"`
	Assets     []Asset `yaml:"assets"`
}

type Asset struct {
	ID        string  `yaml:"id"`
	Code      string  `yaml:"code"`
	Condition string  `yaml:"condition"`
	Notes     string  `yaml:"notes"`
	Blocks    []Block `yaml:"blocks"`
}

type Block struct {
	Start  string `yaml:"start"`
	End    string `yaml:"end"`
	Reason string `yaml:"reason"`
	Notes  string `yaml:"notes"`
}

func Parse(r io.Reader) (Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return Catalog{}, fmt.Errorf("fixtures: decode: %w", err)
	}
	return c, nil
}

func LoadFile(path string) (Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("fixtures: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Seed registers every product, asset and block through bus. Assets whose
// code is already registered are skipped, so seeding twice is harmless.
func Seed(ctx context.Context, bus commands.Bus, c Catalog) (int, error) {
	ctx = principal.System(ctx, "fixtures")
	assets := 0
	for _, p := range c.Products {
		if _, err := bus.Dispatch(ctx, catalog.RegisterProductCommand{
			ProductID:  p.ID,
			Title:      p.Title,
			Category:   p.Category,
			DailyRate:  p.DailyRate,
			Currency:   p.Currency,
			BufferDays: p.BufferDays,
		}); err != nil {
			return assets, fmt.Errorf("fixtures: product %s: %w", p.ID, err)
		}
		for _, a := range p.Assets {
			_, err := bus.Dispatch(ctx, catalog.RegisterAssetCommand{
				AssetID:   a.ID,
				ProductID: p.ID,
				Code:      a.Code,
				Condition: a.Condition,
				Notes:     a.Notes,
			})
			if errors.Is(err, domaincatalog.ErrAssetCodeTaken) {
				continue
			}
			if err != nil {
				return assets, fmt.Errorf("fixtures: asset %s/%s: %w", p.ID, a.Code, err)
			}
			assets++
			for _, b := range a.Blocks {
				r, err := daterange.Parse(b.Start, b.End)
				if err != nil {
					return assets, fmt.Errorf("fixtures: block on %s: %w", a.Code, err)
				}
				if _, err := bus.Dispatch(ctx, availability.BlockPeriodCommand{
					AssetID: a.ID,
					Range:   r,
					Reason:  b.Reason,
					Notes:   b.Notes,
				}); err != nil {
					return assets, fmt.Errorf("fixtures: block on %s: %w", a.Code, err)
				}
			}
		}
	}
	return assets, nil
}
