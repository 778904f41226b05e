// SPDX-License-Identifier: MPL-2.0

package main

import "qinstalltest/internal/cli"

func main() {
	cli.Execute()
}
