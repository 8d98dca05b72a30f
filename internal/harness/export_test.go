package harness

// Expand exposes expand for tests.
var Expand = expand

// CommandRunner exposes the default runner for tests.
var CommandRunner = commandRunner
