// Package preprint provides a small registry for academic preprints with
// pluggable catalog and blob storage backends.
//
// It exposes a single Service interface that validates submissions, hands the
// PDF bytes to a BlobStore, persists the metadata record in a Repository and
// optionally mints a synthetic DOI for it. Implementations of repositories
// (memory, Postgres, cached) and blob stores (memory, filesystem, S3) live in
// subpackages.
//
// File Locators
//
// A BlobStore returns a locator for every stored file. It is either an
// absolute URL (remote object storage) or a bare file name that the
// /api/files route resolves under the upload root (legacy local mode). The
// catalog stores the locator verbatim and never inspects its shape.
//
// DOI Numbering
//
// DOIs have the form 10.55555/rvu-preprints.YYYYMM-NNNN. The sequence is
// derived from the number of persisted records sharing the month prefix, so
// two concurrent mints in the same month may compute the same value. The
// unique index on the doi column rejects the second write.
package preprint
