// @title Auber SYL-53X2P Controller API
// @version 1.0
// @description Ramp/soak program runner for the Auber SYL-53X2P temperature controller.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import "auber_controller/internal/cli"

func main() {
	cli.Execute()
}
