// Package testutil contains helper builders and doubles used across tests
// to reduce boilerplate when constructing core model objects (workflow
// definitions, participants, steps) and scripting invoker behavior. These
// helpers are intentionally minimal and avoid adding third-party
// dependencies. They are not intended for production usage.
package testutil
