// Package hooks provides the lifecycle hook registry for programhooks.
//
// Supports pre_init, post_init, pre_runtime and post_runtime stages. Hooks are
// registered directly, bound from a Module, or discovered by scanning a plugin
// directory through an Importer. Execute runs every hook for a stage in
// registration order.
//
// Invalid and empty stages are reported through the "HookManager" logger
// and the returned Result rather than as errors.
package hooks
