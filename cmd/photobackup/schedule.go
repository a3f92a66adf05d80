package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/photobackup/engine/internal/domain"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage recurring backup schedules",
}

var (
	scheduleDestID   string
	scheduleName     string
	scheduleKind     string
	scheduleHour     int
	scheduleMinute   int
	scheduleWeekday  int
	scheduleDOM      int
	scheduleInterval int
	scheduleID       string
)

var scheduleAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a recurring or one-time schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("")
		if err != nil {
			return err
		}
		defer a.Close()

		sched := domain.ScheduledBackupJob{
			ID:            uuid.NewString(),
			DestinationID: scheduleDestID,
			Name:          scheduleName,
			IsEnabled:     true,
			Filter:        domain.FilterFullLibrary,
			CreatedAt:     time.Now(),
			ScheduleType: domain.ScheduleType{
				Kind:         domain.ScheduleKind(scheduleKind),
				IntervalSecs: scheduleInterval,
				Hour:         scheduleHour,
				Minute:       scheduleMinute,
				Weekday:      time.Weekday(scheduleWeekday),
				DayOfMonth:   scheduleDOM,
			},
		}
		if err := a.sched.AddSchedule(context.Background(), sched); err != nil {
			return err
		}
		fmt.Println(sched.ID)
		return nil
	},
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enabled schedules",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("")
		if err != nil {
			return err
		}
		defer a.Close()

		schedules, err := a.catalog.ListEnabledSchedules(context.Background())
		if err != nil {
			return err
		}
		for _, s := range schedules {
			next := "n/a"
			if s.NextRunTime != nil {
				next = s.NextRunTime.Format(time.RFC3339)
			}
			fmt.Printf("%s\t%s\t%s\tnext=%s\n", s.ID, s.Name, s.ScheduleType.Kind, next)
		}
		return nil
	},
}

var scheduleRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove a schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("")
		if err != nil {
			return err
		}
		defer a.Close()
		return a.sched.RemoveSchedule(context.Background(), scheduleID)
	},
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleAddCmd, scheduleListCmd, scheduleRemoveCmd)

	scheduleAddCmd.Flags().StringVar(&scheduleDestID, "dest", "", "destination ID")
	scheduleAddCmd.Flags().StringVar(&scheduleName, "name", "", "schedule display name")
	scheduleAddCmd.Flags().StringVar(&scheduleKind, "kind", "", "oneTime, interval, daily, weekly, monthly")
	scheduleAddCmd.Flags().IntVar(&scheduleInterval, "interval-secs", 0, "interval kind: seconds between runs")
	scheduleAddCmd.Flags().IntVar(&scheduleHour, "hour", 0, "daily/weekly/monthly: hour of day (0-23)")
	scheduleAddCmd.Flags().IntVar(&scheduleMinute, "minute", 0, "daily/weekly/monthly: minute of hour (0-59)")
	scheduleAddCmd.Flags().IntVar(&scheduleWeekday, "weekday", 0, "weekly: day of week (0=Sunday)")
	scheduleAddCmd.Flags().IntVar(&scheduleDOM, "day-of-month", 1, "monthly: day of month, clamped to month length")
	_ = scheduleAddCmd.MarkFlagRequired("dest")
	_ = scheduleAddCmd.MarkFlagRequired("kind")

	scheduleRemoveCmd.Flags().StringVar(&scheduleID, "id", "", "schedule ID")
	_ = scheduleRemoveCmd.MarkFlagRequired("id")
}
