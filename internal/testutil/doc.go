// Package testutil builds the mock dataset fixtures shared by package tests:
// users, entities and memberships tables with a matching registry, plus
// helpers that lay a dataset out on disk the way package source expects.
package testutil
