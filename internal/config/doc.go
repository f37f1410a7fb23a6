// Package config reads the optional project file and the environment knobs
// of sbom-compile-order.
//
// The project file is HCL. Every attribute is optional, and an env("NAME")
// function is available inside expressions so that secrets can stay out of
// the file:
//
//	cache_dir = "cache"
//	workers   = 8
//
//	fetch {
//	  packages     = true
//	  wait_seconds = 300
//	}
//
//	mirror {
//	  endpoint   = "minio.internal:9000"
//	  bucket     = "sbom-artifacts"
//	  access_key = env("MIRROR_ACCESS_KEY")
//	  secret_key = env("MIRROR_SECRET_KEY")
//	}
//
// Values in the file override built-in defaults. The environment and the
// command line override the file.
package config
