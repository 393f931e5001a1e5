package main

import (
	"context"
	"flag"

	"github.com/gramlinux/GramManager/client"
	"github.com/gramlinux/GramManager/system/shared"
)

var address = flag.String("address", shared.GRPCAddress, "supervisor gRPC address")

func main() {
	flag.Parse()

	configurator := client.NewInterface(*address)

	configurator.Serve(context.Background())
}
