package placement

// Move exposes move for tests.
var Move = move
