// Package fileutil provides the small set of file helpers vmc needs for its
// local state: the token store and the target file.
//
// Writes are atomic: data goes to a unique temporary file in the target
// directory, is synced, given its final permissions, and renamed into place
// (with a few retries for transient rename failures). Readers therefore see
// either the old or the new content, never a partial file.
//
//	tokens := map[string]string{"http://api.vcap.me": token}
//	if err := fileutil.AtomicWriteJSON(path, tokens, fileutil.PrivateFilePermission); err != nil {
//	    return err
//	}
//
// ReadJSON treats a missing file as empty and leaves the target unchanged.
package fileutil
