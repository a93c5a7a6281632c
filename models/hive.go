package models

import (
	"fmt"
	"strings"
)

// HiveCategory names a hive: a top-level section of the marketplace.
type HiveCategory string

const (
	HiveEssentials HiveCategory = "essentials"
	HiveAcademia   HiveCategory = "academia"
	HiveLogistics  HiveCategory = "logistics"
	HiveBuzz       HiveCategory = "buzz"
	HiveArchive    HiveCategory = "archive"
	HiveSideHustle HiveCategory = "sidehustle"
)

var Hives = []HiveCategory{HiveEssentials, HiveAcademia, HiveLogistics, HiveBuzz, HiveArchive, HiveSideHustle}

func ParseHive(s string) (HiveCategory, error) {
	h := HiveCategory(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Hives {
		if h == known {
			return h, nil
		}
	}
	return "", fmt.Errorf("unknown hive %q", s)
}

// HiveEvent is published whenever a listing in a hive changes.
type HiveEvent struct {
	Hive      HiveCategory `json:"hive"`
	Method    string       `json:"method"`
	ListingID string       `json:"listing_id"`
	UserID    string       `json:"user_id,omitempty"`
}
