// Command mkvtag watches a directory for settling media files and runs a
// metadata tagging command against each one, tracking per-file state in a
// JSON status log inside the watched directory.
package main
