// Package repository keeps a local checkout of the Fabric repository so the
// pattern loader can find its patterns under data/fabric/data/patterns.
//
// # Sync
//
// FabricRepo.Sync resolves the configured checkout directory and then:
//
//   - clones the remote when the directory is missing or empty
//   - fetches and hard-resets to the remote branch when it already holds the
//     same repository
//   - refuses to touch a directory holding other content or another repository
//
// A working tree with local modifications is left alone; Sync logs a warning
// and returns the existing patterns directory.
//
//	repo := repository.NewFabricRepo(cfg.Fabric)
//	dir, err := repo.Sync(ctx, logger)
//
// # Authentication
//
// Public access is attempted first. When the remote answers with an
// authentication error, a GitHub Personal Access Token is read from the OS
// keyring (or GITHUB_TOKEN) and the operation is retried once.
package repository
