// Package ivf provides an in-memory inverted-file (IVF-flat) vector index.
// It implements the driven.VectorIndex interface.
//
// Vectors are partitioned into lists by spherical k-means. A query scans
// the probes lists whose centroids are nearest to it and ranks members by
// exact cosine distance. More probes means better recall and more work;
// with probes >= lists the search is exact.
//
// Until the index holds enough vectors to train, every search is an exact
// flat scan.
package ivf
