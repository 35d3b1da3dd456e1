// Package planner decides the per-file action (encode or skip) and builds
// the Plan that the handbrake package turns into a command line.
//
//   - Plan, Action (types.go)
//   - BuildPlan, IsTargetCodec (planner.go)
package planner
