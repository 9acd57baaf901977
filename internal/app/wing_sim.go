// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"log"
	"math"
	"net/http"
	"time"
)

// wingSimHandler answers like a wing-angle sensor: a plain-text angle in
// degrees that sweeps ±amplitude with the given period.
func wingSimHandler(start time.Time, now func() time.Time, amplitude float64, period time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		phase := now().Sub(start).Seconds() / period.Seconds()
		angle := amplitude * math.Sin(2*math.Pi*phase)
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "%.1f\n", angle)
	})
}

// RunWingSim serves two simulated wing sensors on addr, at /fore and
// /mizzen, for bench runs of the logger without the boat.
func RunWingSim(addr string) error {
	start := time.Now()
	mux := http.NewServeMux()
	mux.Handle("/fore", wingSimHandler(start, time.Now, 25, 40*time.Second))
	mux.Handle("/mizzen", wingSimHandler(start, time.Now, 20, 55*time.Second))

	log.Printf("wing_sim: serving /fore and /mizzen on %s", addr)
	return http.ListenAndServe(addr, mux)
}
