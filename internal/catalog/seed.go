package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func meters(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// numbered builds patterns <idPrefix>1..n named "<namePrefix> i" with images under dir.
func numbered(idPrefix, namePrefix, dir, ext string, n int) []Pattern {
	out := make([]Pattern, 0, n)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("%s%d", idPrefix, i)
		out = append(out, Pattern{
			ID:    id,
			Name:  fmt.Sprintf("%s %d", namePrefix, i),
			Image: dir + "/" + id + ext,
		})
	}
	return out
}

func garment(name, folder, sketch string, c Consumption, patterns []Pattern) Product {
	return Product{
		DisplayName: name,
		Consumption: c,
		CoverImage:  "images/" + folder + "/cover.jpg",
		SketchImage: "images/" + folder + "/" + sketch,
		Patterns:    patterns,
	}
}

// DefaultCatalog is the storefront's launch collection. Stock starts at zero.
func DefaultCatalog() Catalog {
	chemise := numbered("CH", "CH", "images/chemise/CHEMISE_PATTERNS", ".png", 18)
	chemise = append(chemise,
		Pattern{ID: "BLACK", Name: "BLACK", Image: "https://placehold.co/165x165/000000/000000"},
		Pattern{ID: "WHITE", Name: "WHITE", Image: "https://placehold.co/165x165/ffffff/ffffff"},
	)
	entire := func(m string) Consumption { return Consumption{Entire: meters(m)} }
	lined := func(out, in string) Consumption { return Consumption{Outside: meters(out), Inside: meters(in)} }

	return Catalog{
		"CHEMISE": garment("CHEMISE", "chemise", "CHEMISE_SKETCH.png", entire("2.20"), chemise),
		"PONTALON": garment("PONTALON", "pontalon", "PONTALON_SKETCH.png", entire("2.25"),
			numbered("P", "P", "images/pontalon/PONTALON_PATTERNS", ".png", 10)),
		"SANT MANCH": garment("CHEMISE SANS MANCHE", "santmanch", "CHEMISE_SANS_MANCHE_SKETCH.png", entire("1.35"),
			numbered("CHM", "CSM", "images/santmanch/CHEMISE_SANS_MANCHE_PATTERNS", ".png", 10)),
		"JUPE": garment("JUPE", "jupe", "JUPE_SKETCH.png", entire("2.30"),
			numbered("J", "JUPE", "images/jupe/JUPE_PATTERNS", ".png", 7)),
		"MANTEAU DROIT": garment("MANTEAU DROIT", "manteaudroit", "MANTEAU_DROIT_SKETCH.png", lined("3.70", "2.50"),
			numbered("MD", "MD", "images/manteaudroit/MANTEAU_DROIT_PATTERNS", ".jpg", 2)),
		"ROBE ESABEL": garment("ROBE ESABEL", "robeesabel", "ROBE_ESABEL_SKETCH.png", entire("3.10"),
			numbered("RE", "RE", "images/robeesabel/ROBE_ESABEL_PATTERNS", ".png", 2)),
		"TOP ESABEL": garment("TOP ESABEL", "topesabel", "TOP_ESABEL_SKETCH.png", entire("2.20"),
			numbered("TE", "TE", "images/topesabel/TOP_ESABEL_PATTERNS", ".png", 2)),
		"MANTEAU 3/4": garment("MANTEAU 3/4", "manteautrois", "MANTEAU_3_4_SKETCH.png", lined("4.00", "2.50"),
			numbered("MDT", "M3Q", "images/manteautrois/MANTEAU_3_4_PATTERNS", ".jpg", 3)),
		"MANTEAU LONG": garment("MANTEAU LONG", "manteaulong", "MANTEAU_LONG_SKETCH.png", lined("4.00", "2.60"),
			numbered("V", "ML", "images/manteaulong/MANTEAU_LONG_PATTERNS", ".jpg", 5)),
		"VEST": garment("VEST", "vest", "VEST_SKETCH.png", lined("2.10", "1.50"),
			numbered("V", "VEST", "images/vest/VEST_PATTERNS", ".jpg", 10)),
		"ROBE LONG": garment("ROBE LONG", "robelong", "ROBE_LONG_SKETCH.png", entire("3.80"),
			numbered("R", "RL", "images/robelong/ROBE_LONG", ".png", 11)),
	}
}
