package main

import (
	"encoding/json"
	"fmt"
	"io"
)

// print out json in readable format
func printJson(handle io.Writer, message interface{}) {
	b, err := json.MarshalIndent(message, "", "  ")
	if nil != err {
		fmt.Fprintf(handle, "error: %s\n", err)
		return
	}
	fmt.Fprintf(handle, "%s\n", b)
}
