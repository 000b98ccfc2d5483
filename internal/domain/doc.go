// Package domain models shipping orders and the pure stages of the order map
// pipeline: aggregation, proximity classification, and result assembly.
//
// # Data Source
//
// Orders arrive as a spreadsheet export from the shop back office, one row per
// product line. The columns the pipeline relies on are listed in
// [RequiredColumns]; any other columns are ignored. A table missing one of
// them is rejected with a [SchemaError] before any geocoding happens.
//
// # Postal Codes
//
// Shipping zips are passed to the geocoding provider exactly as they appear
// in the sheet. "SW1A 1AA", "sw1a 1aa" and "SW1A 1AA " are three different
// lookups and three different cache entries. Normalizing them would be a
// guess about the provider's matching rules, so it is left to the provider.
//
// # Aggregation
//
// Rows are grouped by "Order ID" in first-appearance order:
//
//	Total, Quantities      summed
//	Product name           joined with ", " in row order, duplicates kept
//	Name, Shipping Zip,    taken from the first row of the order; later
//	Shipping Province,     rows' values are discarded
//	coordinate
//
// # Proximity
//
// Distances are haversine great-circle distances on a spherical Earth
// (radius orb.EarthRadius, via orb/geo). An order matches a reference point
// when distance <= RadiusMeters. The boolean Near flag drives the two-colour
// marker scheme (red near, blue far); MatchingLabels lists every reference the
// order falls inside. DisplayRadiusMeters is only drawn, never compared.
//
// # Empty Results
//
// If no row resolves, [Assemble] cannot average anything. It reports
// HasCenter=false and centers the view on the reference points instead.
package domain
