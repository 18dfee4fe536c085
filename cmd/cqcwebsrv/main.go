// Command cqcwebsrv runs the embedded multi-protocol web server: plain and
// TLS HTTP listeners handing requests to a worker pool, WebSocket upgrades
// routed to either a scripting-language session or a RIVA viewer session.
package main

import (
	"fmt"
	"os"
)

func main(){
	if err:= newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
