// Package domain models oceanographic float profiles and the question
// answering pipeline that runs over them.
//
// # Data Source
//
// Profiles follow the shape of ARGO float data: each float surfaces
// periodically and reports a vertical profile of samples taken on its ascent.
// The service never ingests real ARGO netCDF files; profiles are either
// generated synthetically at startup or loaded from a fixture file produced
// by cmd/genprofiles.
//
// # Conventions
//
// Depth and pressure:
//
//	Depth is in metres, positive downward. Pressure is in decibars (dbar).
//	One dbar of sea water is roughly one metre of depth, so the two track
//	each other closely. Depth requests ("at 1000 m") are matched against a
//	symmetric tolerance band (default ±25 m) because floats sample sparsely.
//
// Units:
//
//	Temperature: °C
//	Salinity:    PSU (practical salinity units)
//	Pressure:    dbar
//	Oxygen:      μmol/kg (dissolved oxygen; only biogeochemical floats carry it)
//
// Ordering:
//
//	The Store keeps profiles sorted by float id, and every profile's samples
//	strictly ascending by depth. All reductions iterate in that order, which
//	makes tie-breaks for MAX/MIN deterministic: first profile id, then
//	shallowest depth.
//
// # Pipeline
//
// A query moves through [Extract] (text to [Intent]), [Aggregate] (intent to
// [AggregationResult]) and [Compose] (result to sentence plus
// [VisualizationSpec]). Extract and Compose never fail. Aggregate returns a
// [*NoMatchingDataError] when nothing in the store satisfies the intent.
package domain
