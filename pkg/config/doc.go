// Package config loads and validates the gateway's YAML configuration.
//
// The configuration file declares the server surface (listen address,
// telemetry, CORS) and the static connector policies: providers, path
// allow-lists, rate limits, caching, budgets, transforms, and schemas.
//
// Environment references of the form ${NAME} or ${NAME:default} are expanded
// in the raw YAML before parsing, so credential material never has to be
// written into the file. Loading applies defaults and validates the result;
// a Watcher can observe the file and deliver a fully reloaded configuration
// for atomic replacement at runtime. Policies are never mutated in place.
package config
