// Package bundle turns an application directory into the files uploaded to
// the control plane.
//
// Scan walks the directory and applies ignore rules, Fingerprints computes
// the SHA-1 resource list used to skip files the server already caches, and
// Pack writes the remaining files into a zip archive.
//
// Scan does not judge symbolic links; run security.CheckLinks on the root
// before scanning a directory that will be uploaded.
package bundle
