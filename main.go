// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/fxbridge/fxbridge/cmd/fxbridge"

func main() {
	cmd.Execute()
}
