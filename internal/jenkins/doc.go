// Package jenkins talks to the CI server and reconciles job definitions with
// it.
//
// Client is the set of primitives the server offers for a job: existence,
// reading its configuration, create, update, delete and build. HTTPClient
// implements it over the Jenkins REST API; the memory subpackage implements
// it in process for tests and dry runs.
//
// Reconciler sits on top of a Client and a template renderer. Its
// CreateOrReset is the idempotent entry point used by the updater: it
// renders the job configuration, embeds the pipeline script and then
// updates the job if it exists or creates it otherwise.
package jenkins
