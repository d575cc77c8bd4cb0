// Package iceflow provides access to pre-ICESat-2 polar altimetry datasets:
// searching the NASA Common Metadata Repository, downloading granules from
// Earthdata, reading the heterogeneous file formats into one common point
// schema, and transforming coordinates between ITRF realizations.
//
// The high-level entry points are Client.Fetch, which returns points in
// memory, and Client.CreateParquet, which streams them into a parquet cache
// directory. The lower-level packages (fetch, reader, itrf, store) are
// usable on their own.
package iceflow
