/*
Package privval holds the signing key of a master.

FileMaster is the file based signer. It keeps the private key in one file
and the number of the last signed block in another, and refuses to sign a
block at or below that number.
*/
package privval
