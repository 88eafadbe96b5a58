package main

import (
	"bitbucket.org/airenas/slidego/internal/app/clean"
	"github.com/labstack/gommon/color"
)

func main() {
	printBanner()
	clean.Execute()
}

var (
	version string
)

func printBanner() {
	banner := `
   _____ / (_)____/ /__  ____ _____
  / ___// / / __  / _ \/ __ '/ __ \
 (__  )/ / / /_/ /  __/ /_/ / /_/ /
/____//_/_/\__,_/\___/\__, /\____/  v: %s
                     /____/
      clean service
%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("bitbucket.org/airenas/slidego"))
}
