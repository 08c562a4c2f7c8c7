// Package fileops provides the small set of filesystem helpers used to ingest
// pattern directories.
//
// # Reading pattern files
//
// Pattern files are read through ReadTextFile, which combines the checks the
// loader relies on before touching content:
//
//  1. **Existence and type**: the path must exist and must not be a directory
//  2. **Size limit**: files above the configured limit are rejected before reading
//  3. **Encoding**: content must be valid UTF-8
//
// # Example
//
//	content, err := fileops.ReadTextFile(filepath.Join(dir, "system.md"), 5*1024*1024)
//	if err != nil {
//	    return fmt.Errorf("failed to read system.md: %w", err)
//	}
//
// # Directory listing
//
// ListSubdirectories returns the immediate child directories of a root in the
// order os.ReadDir yields them. Symlinks are not followed.
package fileops
