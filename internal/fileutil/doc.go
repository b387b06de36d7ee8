// Package fileutil walks a project directory and returns the files that belong
// to it.
//
// # Filtering
//
// At every entry the scanner applies, in order:
//   - special names (editor and OS metadata, the .promptsync state directory)
//   - the hierarchical ignore rules from package ignore; ignored directories are
//     pruned so large dependency trees are never descended into
//   - the allow-set, matched against the lowercase extension or, for
//     extensionless files, the exact lowercase file name
//
// Files the user selected earlier can be listed in ScanOptions.AlwaysInclude.
// They are appended after the walk when they still exist, even if a later rule
// or allow-set change would hide them.
//
// # Error Tolerance
//
// The scanner collects non-fatal errors (e.g., permission denied on a
// subdirectory) and continues scanning. Only an inaccessible root causes
// immediate failure; a root that has disappeared is reported as ErrRootMissing.
//
//	rules, _ := ignore.Discover(root, nil, logger)
//	result, err := fileutil.ScanDirectory(root, fileutil.ScanOptions{
//	    Extensions: []string{".go", ".md", "makefile"},
//	    RuleSets:   rules,
//	})
//	if err != nil {
//	    return err
//	}
//	for _, err := range result.Errors {
//	    log.Printf("skipped: %v", err)
//	}
//
// # Ordering
//
// Files are returned in walk order, which is lexical within each directory,
// so scanning an unchanged tree twice yields identical results. Paths are
// relative to the root and always use forward slashes.
package fileutil
