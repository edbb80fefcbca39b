/*
Package template fills ${name} placeholders in decoded definition documents.

# Overview

Definitions are often shared between environments that differ only in a
few constants. Placeholders let one document serve them all:

	context:
	  limit: ${limit}
	  greeting: "Hello ${user}"

Only the brace form is recognised. A bare $name is left alone because $ is
a valid identifier character in expressions.

# Typed Substitution

A string that is exactly one placeholder takes the variable's value with
its type, so limit above becomes the number 10 rather than "10". A
placeholder embedded in a longer string is formatted into it.

# Missing Variables

By default a missing variable is an error listing every undefined name.
WithMissingAction(MissingKeep) leaves the placeholder as written and
MissingEmpty removes it.
*/
package template
