// Package vm executes Strict bytecode: flat sequences of statements produced
// by the compiler package from type-checked method bodies.
//
// # Architecture Overview
//
//   - Instance and Value: a typed runtime value over a closed set of payload
//     kinds (number, text, boolean, list, table, unresolved member reference).
//
//   - Register and Registry: eight scratch registers and the cyclic allocator
//     the compiler uses to wire producers to consumers.
//
//   - Memory: the register file plus the variable store of one execution.
//
//   - Instruction and Statement: the bytecode vocabulary. Instructions are
//     banded (storage, arithmetic, comparison, jumps, control) so a category
//     test is one comparison against a separator.
//
//   - VirtualMachine: runs a statement sequence with an instruction pointer,
//     a condition flag and a stack of loop frames.
//
// # Invocation
//
// An Invoke statement carries the callee's method call and the caller's
// Registry. The VM binds arguments and receiver members, asks the installed
// CompileFunc for the callee's statements, and runs them in a child
// execution. The child shares the parent's register map but sees only the
// parent's member variables, so a callee's result register is visible to the
// caller while its locals are not.
//
// # Tracing
//
// Setting VirtualMachine.Trace logs every executed statement to the
// "strict.vm" commonlog logger at debug level, tagged with a per-run id and
// the invocation depth.
package vm
