// Package cli implements the labelstore command line tool.
//
// Every flag can also be set through the environment as LABELSTORE_<FLAG>
// with dashes replaced by underscores (e.g. LABELSTORE_CACHE_DIR). The files
// .env and .env.local in the working directory are loaded first. The dataset
// locator falls back to DATASET_PATH.
package cli
