package main

import (
	"context"

	"github.com/hien-pd-dac/tutorfinder/core/refdata"
)

func (cli *commandLine) addRef(kind refdata.Kind, name string) error {
	e, err := cli.refSvc.Create(context.Background(), refdata.NewEntry{Kind: kind, Name: name})
	if err != nil {
		return err
	}
	cli.printf("added %s %q (%s)\n", kind, e.Name, e.ID)
	return nil
}

func (cli *commandLine) purgeInactive() error {
	n, err := cli.usrSvc.PurgeInactive(context.Background())
	if err != nil {
		return err
	}
	cli.printf("purged %d inactive users\n", n)
	return nil
}
