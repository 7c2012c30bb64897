// Команда ecoctl управляет прогрессом EcoPulse из терминала: офлайн через SQLite
// или в пространстве игрока на сервере через Postgres.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
