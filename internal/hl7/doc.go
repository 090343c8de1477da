// Package hl7 parses and renders messages in the delimited segment grammar:
// segments separated by a terminator, fields by a field separator, and
// repetitions, components and subcomponents by the encoding characters the
// header segment declares about itself.
//
// Field positions are 1-based and count the segment tag as position 1, so in
//
//	PID|||123456789||DOE^JANE^M||19800101|F
//
// position 4 holds "123456789" and position 6 holds "DOE^JANE^M". In the
// header the encoding characters sit at position 2 and are never split.
//
// Structure is split eagerly; escape sequences are only decoded when a leaf
// value is read with Unescape.
package hl7
