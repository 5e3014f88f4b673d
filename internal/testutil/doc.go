// Package testutil contains builders and fakes shared by tests: a fluent
// conversation builder and recording memory backends. They are not intended
// for production usage.
package testutil
