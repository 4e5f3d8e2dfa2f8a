// This program performs administrative tasks for the ledger service.
package main

import "github.com/tesseralabs/ledger/app/tooling/admin/cmd"

func main() {
	cmd.Execute()
}
