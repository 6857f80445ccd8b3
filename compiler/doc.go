/*
Package compiler runs the build half of the pipeline.

Process of compilation

	AST document (yaml) ->
		decode ->
	Abstract Syntax Tree (ast) ->
		lower ->
	Control Flow Graph (ir) ->
		simulate ->
	Program output

The last step is done by package sim.
*/
package compiler
