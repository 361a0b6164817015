// Package security provides the pre-flight checks vmc runs on local input
// before anything is sent to the cloud controller.
//
// # Link Containment
//
// An application bundle may contain symbolic links, but none of them may
// point outside the bundle root. CheckLinks walks the bundle and stops at
// the first offending link:
//
//	if err := security.CheckLinks(appDir); err != nil {
//	    return err // "Can't deploy application containing links ..."
//	}
//
// Link targets are read once with os.Readlink and resolved lexically against
// the directory holding the link. Broken links and links to themselves are
// accepted as long as their target stays under the root.
//
// # Path Validation
//
// ValidatePath rejects empty paths and parent directory references.
// ValidateFilePermissions detects world-writable files such as a token file
// that other local users could tamper with.
package security
