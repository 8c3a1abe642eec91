// Command correlate-server runs the chunked-correlation job service over
// HTTP and websocket, per spec §6's domain-stack job API.
package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/standardbeagle/armcorrelate/config"
	"github.com/standardbeagle/armcorrelate/internal/corelog"
	"github.com/standardbeagle/armcorrelate/internal/jobsvc"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("correlate-server: load config: %v", err)
	}

	addr := flag.String("listen", cfg.Server.ListenAddr, "address to listen on")
	flag.Parse()

	broadcaster := jobsvc.NewBroadcaster()
	defer broadcaster.Close()

	jobs := jobsvc.NewJobManager(broadcaster)
	server := jobsvc.NewServer(jobs, broadcaster)

	corelog.Printf("correlate-server: listening on %s", *addr)
	log.Printf("listening on %s", *addr)
	if err := http.ListenAndServe(*addr, server); err != nil {
		log.Fatalf("correlate-server: %v", err)
	}
}
