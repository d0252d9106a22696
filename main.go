package main

import (
	"os"

	"github.com/sirupsen/logrus"

	_ "github.com/denysvitali/autowaybler/cmd/autocharge"
	"github.com/denysvitali/autowaybler/cmd/root"
	_ "github.com/denysvitali/autowaybler/cmd/start"
	_ "github.com/denysvitali/autowaybler/cmd/status"
	_ "github.com/denysvitali/autowaybler/cmd/version"
)

func main() {
	if err := root.RootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
