package testutil

import "testing"

// Given, When, and Then wrap subtests so router and handler tests read as
// scenarios. The full gherkin suites live under e2e/; these helpers cover
// the in-process cases.
func Given(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run("Then "+desc, fn)
}
