// Package bolasso prepares data for bootstrap lasso variable selection.
//
// The module has two halves, both driven by the bolasso command:
//
// # Feature expansion
//
// The features command reads a training and a testing CSV partition,
// computes every statistic (means, standard deviations, top-coding quantiles,
// category frequencies) from the training rows only, and applies a recipe of
// column transforms. A categorical column becomes one indicator per level,
// with the most frequent training level omitted as the reference. A
// continuous column is standardised, optionally with squared and cubed terms
// and a missing indicator, and missing values are imputed to zero. A hurdle
// column becomes a NONZERO indicator plus the standardised part above the
// threshold. Columns may also be dropped or kept as they are.
//
// Pairwise interactions A_X_B of derived columns from different originals are
// then added. Each derived column is streamed to a compressed sparse column
// (CSC) text file as soon as it exists; the auxiliary columns named by the
// recipe are written as a dense CSV or Parquet table.
//
// # Selection
//
// Each bootstrap replicate of a lasso fit produces a coefficient table. The
// select command counts, per variable, the fraction of replicates with a
// non-zero coefficient, keeps the variables whose frequency reaches a
// threshold and closes the set under interaction: selecting A_X_B also
// selects A and B.
//
// # Quick Start
//
//	bolasso features --train adult.data --test adult.test --csc X.csc.gz --aux aux.csv
//	bolasso select 0.9 runs/*.csv freq.csv selected.csv
//	bolasso inspect X.csc.gz
//
// Inputs and outputs may be local paths or s3:// and gs:// URIs; a .gz, .zst,
// .sz, .s2 or .lz4 suffix selects transparent compression.
//
// # Packages
//
//   - pkg/features: the transform engine and interactions
//   - pkg/selection: coefficient aggregation and closure
//   - pkg/csc: sparse column stream reader and writer
//   - pkg/columnar, pkg/tabular: in-memory tables and their CSV/Parquet codecs
//   - pkg/storage, pkg/compression: local and object storage with compression
//   - pkg/config: application settings and feature recipes
//   - pkg/logger, pkg/metrics, pkg/observability: zap logging, Prometheus
//     metrics and OpenTelemetry tracing
//   - internal/pipeline: the features and select runs behind the CLI
package bolasso
