// Package cli implements the flashfile command line: global flags that
// override the environment configuration, and one Command per verb.
package cli
