// Package build is the single entry point for running builds.
//
// A Service owns what every build shares: the storage adapter, the stylesheet
// compiler, commit options, the metrics recorder and the build journal. Full
// builds construct a fresh site.State; incremental callers hand their own
// state and plan to Commit. Every commit gets a uuid build id that appears in
// logs and in the journal.
package build
