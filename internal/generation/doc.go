// Package generation defines the reason-generation boundary: the
// ReasonGenerator interface, its error taxonomy, the shared prompt builder,
// the retry decorator, and the backend router.
package generation
