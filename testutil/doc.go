// Package testutil provides fixtures for labelstore tests.
//
// This package is intended for use in tests only.
//
// # Fixtures
//
//	ds := testutil.SampleDataset()
//	path := testutil.WriteDataset(t, t.TempDir(), ds)
//
// # Random Data
//
//	rng := testutil.NewRNG(seed)
//	ds := rng.Dataset(100, 5, 3) // images, categories, annotations per image
package testutil
