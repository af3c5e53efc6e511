package reports

import (
	"strconv"
	"strings"

	"github.com/odyssey-erp/odyssey-ledger/internal/accounting"
)

// Class is the balance sheet section an account lands in.
type Class string

const (
	ClassCurrentAsset        Class = "current_asset"
	ClassNonCurrentAsset     Class = "non_current_asset"
	ClassCurrentLiability    Class = "current_liability"
	ClassNonCurrentLiability Class = "non_current_liability"
	ClassEquity              Class = "equity"
	ClassIncomeStatement     Class = "income_statement"
)

// Rule is one entry of the classification table.
type Rule struct {
	Name     string
	// Types restricts the rule to accounts of these types.
	Types    []accounting.AccountType
	Class    Class
	// Fallback marks rules that fire only when nothing more specific matched.
	Fallback bool
	match    func(accounting.Account) bool
}

func (r Rule) applies(acc accounting.Account) bool {
	for _, t := range r.Types {
		if t == acc.Type {
			return r.match(acc)
		}
	}
	return false
}

var (
	assetOnly     = []accounting.AccountType{accounting.AccountTypeAsset}
	liabilityOnly = []accounting.AccountType{accounting.AccountTypeLiability}
	equityOnly    = []accounting.AccountType{accounting.AccountTypeEquity}
	incomeTypes   = []accounting.AccountType{accounting.AccountTypeRevenue, accounting.AccountTypeExpense}
)

// classificationRules is evaluated top to bottom; the first match wins.
var classificationRules = []Rule{
	{Name: "income_statement_type", Types: incomeTypes, Class: ClassIncomeStatement, match: always},

	{Name: "subtype_current_asset", Types: assetOnly, Class: ClassCurrentAsset,
		match: subtypeIn("current_asset", "cash", "bank", "accounts_receivable", "receivable", "inventory", "prepayment", "prepaid", "short_term_investment")},
	{Name: "subtype_non_current_asset", Types: assetOnly, Class: ClassNonCurrentAsset,
		match: subtypeIn("non_current_asset", "fixed_asset", "intangible_asset", "long_term_investment", "property_plant_equipment", "accumulated_depreciation")},
	{Name: "subtype_current_liability", Types: liabilityOnly, Class: ClassCurrentLiability,
		match: subtypeIn("current_liability", "accounts_payable", "payable", "accrued_liability", "tax_payable", "short_term_loan", "credit_card")},
	{Name: "subtype_non_current_liability", Types: liabilityOnly, Class: ClassNonCurrentLiability,
		match: subtypeIn("non_current_liability", "long_term_liability", "long_term_loan", "mortgage", "bond")},
	{Name: "subtype_equity", Types: equityOnly, Class: ClassEquity,
		match: subtypeIn("equity", "retained_earnings", "share_capital", "owner_equity", "drawings")},

	{Name: "code_range_current_asset", Types: assetOnly, Class: ClassCurrentAsset, match: codeBetween(1000, 1499)},
	{Name: "code_range_non_current_asset", Types: assetOnly, Class: ClassNonCurrentAsset, match: codeBetween(1500, 1999)},
	{Name: "code_range_current_liability", Types: liabilityOnly, Class: ClassCurrentLiability, match: codeBetween(2000, 2499)},
	{Name: "code_range_non_current_liability", Types: liabilityOnly, Class: ClassNonCurrentLiability, match: codeBetween(2500, 2999)},
	{Name: "code_range_equity", Types: equityOnly, Class: ClassEquity, match: codeBetween(3000, 3999)},

	{Name: "name_current_asset", Types: assetOnly, Class: ClassCurrentAsset,
		match: nameContains("cash", "bank", "receivable", "inventory", "stock", "prepaid", "deposit")},
	{Name: "name_non_current_asset", Types: assetOnly, Class: ClassNonCurrentAsset,
		match: nameContains("equipment", "vehicle", "property", "building", "furniture", "goodwill", "depreciation")},
	{Name: "name_non_current_liability", Types: liabilityOnly, Class: ClassNonCurrentLiability,
		match: nameContains("loan", "mortgage", "long-term", "long term", "bond", "lease")},
	{Name: "name_current_liability", Types: liabilityOnly, Class: ClassCurrentLiability,
		match: nameContains("payable", "accrued", "vat", "tax", "overdraft", "wages")},

	{Name: "fallback_equity", Types: equityOnly, Class: ClassEquity, match: always},
	{Name: "fallback_asset", Types: assetOnly, Class: ClassNonCurrentAsset, Fallback: true, match: always},
	{Name: "fallback_liability", Types: liabilityOnly, Class: ClassCurrentLiability, Fallback: true, match: always},
}

// Rules returns a copy of the classification table in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(classificationRules))
	copy(out, classificationRules)
	return out
}

// Classify returns the section for acc and the rule that placed it there.
// ok is false only for account types the table does not know.
func Classify(acc accounting.Account) (Class, Rule, bool) {
	for _, rule := range classificationRules {
		if rule.applies(acc) {
			return rule.Class, rule, true
		}
	}
	return "", Rule{}, false
}

func always(accounting.Account) bool { return true }

func subtypeIn(values ...string) func(accounting.Account) bool {
	return func(acc accounting.Account) bool {
		subtype := strings.ToLower(strings.TrimSpace(acc.Subtype))
		if subtype == "" {
			return false
		}
		for _, v := range values {
			if subtype == v {
				return true
			}
		}
		return false
	}
}

func codeBetween(lo, hi int) func(accounting.Account) bool {
	return func(acc accounting.Account) bool {
		n, ok := codeNumber(acc.Code)
		return ok && n >= lo && n <= hi
	}
}

// codeNumber reads the first four digits of a numeric account code, so
// "1100", "1100.01" and "110001" all map to 1100.
func codeNumber(code string) (int, bool) {
	digits := code
	if idx := strings.IndexFunc(code, func(r rune) bool { return r < '0' || r > '9' }); idx >= 0 {
		digits = code[:idx]
	}
	if len(digits) < 4 {
		return 0, false
	}
	n, err := strconv.Atoi(digits[:4])
	if err != nil {
		return 0, false
	}
	return n, true
}

func nameContains(needles ...string) func(accounting.Account) bool {
	return func(acc accounting.Account) bool {
		name := strings.ToLower(acc.Name)
		for _, n := range needles {
			if strings.Contains(name, n) {
				return true
			}
		}
		return false
	}
}
