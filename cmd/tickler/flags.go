package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/amonks/tickler/task"
	"github.com/amonks/tickler/view"
)

// filterValue is a pflag.Value accepting view filter names.
type filterValue view.Filter

var _ pflag.Value = (*filterValue)(nil)

func (f *filterValue) String() string {
	return string(*f)
}

func (f *filterValue) Set(value string) error {
	filter, err := view.ParseFilter(value)
	if err != nil {
		return err
	}
	*f = filterValue(filter)
	return nil
}

func (f *filterValue) Type() string {
	return "filter"
}

func completeFilters(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	filters := view.ValidFilters()
	values := make([]string, 0, len(filters))
	for _, filter := range filters {
		values = append(values, string(filter))
	}
	return values, cobra.ShellCompDirectiveNoFileComp
}

func completeTags(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	tags := task.ValidTags()
	values := make([]string, 0, len(tags))
	for _, tag := range tags {
		values = append(values, string(tag))
	}
	return values, cobra.ShellCompDirectiveNoFileComp
}

func hasChangedFlags(cmd *cobra.Command, flags ...string) bool {
	for _, flag := range flags {
		if cmd.Flags().Changed(flag) {
			return true
		}
	}
	return false
}
