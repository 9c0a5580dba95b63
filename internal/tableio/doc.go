// Package tableio loads APC spreadsheets exported as CSV into core tables
// and writes cleaned tables back out.
//
// Input passes through a fixed chain before CSV parsing:
//
//	file -> size limit -> BOM skip -> charset decoder -> csv.Reader
//
// The charset decoder comes from golang.org/x/text and defaults to
// ISO-8859-1, the encoding most APC exports use. UTF-8 input is not decoded
// but sanitized: invalid bytes become '?'. Cells matching one of the
// configured null tokens become missing cells.
package tableio
