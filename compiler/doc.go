/*

Process of compilation

Assembly Text ->
	parse (front) ->
Instruction Records (value tuples) ->
	assemble (ir) ->
Verified IR: instructions + type table + constant pool ->
	lower (back) ->
C Translation Unit

Embedders that already hold instruction records skip the front stage and call
ir.Assemble directly.

*/
package compiler
