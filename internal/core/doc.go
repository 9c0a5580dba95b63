// Package core provides the cleaning logic for APC spreadsheets.
//
// The package holds the in-memory table and the cell normalizers, and is
// independent of any transport. The HTTP server, the CLI and tests all use
// it unchanged.
//
// # Normalizers
//
// Each normalizer is a pure function of one cell:
//
//   - [NormalizeIdentifier] reduces PMID/PMCID cross references to
//     "PMC<digits>", "PMID<digits>" or "NA".
//   - [NameNormalizer] title-cases publisher and journal names and maps
//     known variants to a canonical spelling.
//   - [StripCurrency] turns "£1200.00" into 1200.
//   - [CostSanitizer] replaces costs at or above a threshold with the
//     column's 90th percentile.
//
// [Cleaner] applies them to the columns named in a [Plan] and reports
// [Stats] before and after.
//
// # Missing Values
//
// A [Cell] is a pgtype.Text. Invalid cells are missing values. The
// identifier normalizer sees missing cells as "NA" and the name normalizer
// as "nan"; the cost column keeps them missing.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - VAL002, VAL005: cost values and missing columns
//   - FILE001-FILE005: file errors (size, format, encoding)
//   - CLN001-CLN002: cleaning options
//   - EXP001-EXP002: database export
//   - JOB001, UPL004-UPL005: load shedding, cancellation and timeouts
package core
