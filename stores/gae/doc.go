// Package gae provides a Google Cloud Datastore implementation of the
// noteauth UserStore, suitable for App Engine and Cloud Run deployments.
//
// Datastore has no unique property constraints, so email uniqueness is
// enforced with a reservation entity keyed by the normalized email, created
// in the same transaction as the user.
package gae
