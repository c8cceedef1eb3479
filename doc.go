/*
Package arinc665 implements the core of an ARINC 665 Media Set toolkit: the
binary protocol codec for the five ARINC 665 file kinds (List of Files, List
of Loads, List of Batches, Load Header, Batch), the in-memory Media Set
object model, and the decompiler/compiler/validator that move between a set
of medium directories and that model.

The package is single-threaded and has no knowledge of any particular
filesystem, CLI, or persistence layer; callers supply a small abstract I/O
interface (ReadFile/WriteFile/CreateMedium/CreateDirectory, see io.go) and
own everything outside of it.

See the xml subpackage for the human-editable XML round-trip of the model.
*/
package arinc665
