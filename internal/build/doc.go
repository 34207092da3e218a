// Package build runs one full site build.
//
// A build is a fixed sequence of stages sharing a State that lives only for
// that run: content is loaded and indexed, the home, post and experiment pages
// are rendered, and finally the asset tree and experiment assets are copied.
// The first failing stage aborts the run. Every run rewrites every output
// file, so repeated runs over unchanged sources produce identical trees.
package build
