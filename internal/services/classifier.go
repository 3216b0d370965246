package services

import (
	"strings"

	"drips/internal/ledger"
)

// Rule identifies which classifier rule decided an object's compatibility.
type Rule int

const (
	RuleMissingID Rule = iota
	RuleMissingType
	RuleSystemObject
	RuleAdminCapability
	RuleDisplayNFT
	RuleFieldShapedNFT
	RulePermissiveFallback
	RuleUnrecognized
)

var ruleNames = [...]string{
	RuleMissingID:          "MissingID",
	RuleMissingType:        "MissingType",
	RuleSystemObject:       "SystemObject",
	RuleAdminCapability:    "AdminCapability",
	RuleDisplayNFT:         "DisplayNft",
	RuleFieldShapedNFT:     "FieldShapedNft",
	RulePermissiveFallback: "PermissiveFallback",
	RuleUnrecognized:       "Unrecognized",
}

func (r Rule) String() string {
	if int(r) < len(ruleNames) {
		return ruleNames[r]
	}
	return "Rule(?)"
}

// Classification is the outcome of Classify. Reason is set iff the object
// is incompatible.
type Classification struct {
	Rule       Rule
	Compatible bool
	Reason     string
}

// systemTypes are matched by substring against the full Move type.
// AdminCap/OperatorCap can also match legitimate NFT types that happen to
// contain them.
var systemTypes = []string{
	"0x2::coin::Coin",
	"0x2::sui::SUI",
	"0x2::package::UpgradeCap",
	"0x2::kiosk::KioskOwnerCap",
	"0x2::kiosk::Kiosk",
	"AdminCap",
	"OperatorCap",
}

var nonRafflableKeywords = []string{
	"Cap",
	"Authority",
	"Treasury",
	"Config",
	"Registry",
	"Witness",
	"Publisher",
	"TreasuryCap",
	"CoinMetadata",
}

var nftFields = []string{"name", "description", "url", "image_url", "metadata"}

type classifierRule struct {
	rule       Rule
	compatible bool
	reason     string
	match      func(ledger.Object) bool
}

// classifierRules is evaluated in order; the first match wins. Known
// non-NFT shapes are excluded before anything NFT-shaped is admitted, and
// anything with structure at all is admitted rather than hidden.
var classifierRules = []classifierRule{
	{RuleMissingID, false, "no object id", func(o ledger.Object) bool { return o.ObjectID == "" }},
	{RuleMissingType, false, "no type information", func(o ledger.Object) bool { return o.Type == "" }},
	{RuleSystemObject, false, "system object", func(o ledger.Object) bool { return containsAny(o.Type, systemTypes) }},
	{RuleAdminCapability, false, "administrative or capability object", func(o ledger.Object) bool { return containsAny(o.Type, nonRafflableKeywords) }},
	{RuleDisplayNFT, true, "", hasDisplayMetadata},
	{RuleFieldShapedNFT, true, "", hasNFTFields},
	{RulePermissiveFallback, true, "", func(o ledger.Object) bool { return o.HasContent || o.Fields != nil || o.Display != nil }},
}

// Classify decides whether an owned object can be offered as a raffle prize.
func Classify(obj ledger.Object) Classification {
	for _, r := range classifierRules {
		if r.match(obj) {
			return Classification{Rule: r.rule, Compatible: r.compatible, Reason: r.reason}
		}
	}
	return Classification{Rule: RuleUnrecognized, Reason: "object structure not recognized as NFT"}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasDisplayMetadata(o ledger.Object) bool {
	if o.Display == nil {
		return false
	}
	return stringField(o.Display, "name") != "" || stringField(o.Display, "description") != ""
}

// hasNFTFields also admits a bare metadata sub-structure; its inner fields
// are not inspected further.
func hasNFTFields(o ledger.Object) bool {
	return hasAnyKey(moveStructFields(o.Fields), nftFields)
}

func hasAnyKey(m map[string]any, keys []string) bool {
	for _, k := range keys {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}
