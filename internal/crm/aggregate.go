// Package crm 在客户端对 CRM 记录做简单汇总，供命令行输出使用。
package crm

import (
	"sort"
	"strings"

	"github.com/Zacy-Sokach/crmassist/internal/api"
)

// Group 一组键相同的记录
type Group[T any] struct {
	Key   string
	Items []T
}

// GroupBy 按 keyFn 分组，组的顺序为键第一次出现的顺序
func GroupBy[T any](records []T, keyFn func(T) string) []Group[T] {
	index := make(map[string]int)
	var groups []Group[T]
	for _, r := range records {
		k := keyFn(r)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group[T]{Key: k})
		}
		groups[i].Items = append(groups[i].Items, r)
	}
	return groups
}

// SumDealValue 合计成交金额
func SumDealValue(interactions []api.Interaction) float64 {
	var total float64
	for _, in := range interactions {
		total += in.DealValue
	}
	return total
}

type MediumCount struct {
	Medium    string
	Count     int
	DealValue float64
}

// InteractionsByMedium 按沟通方式统计，数量多的在前，数量相同按名称排序
func InteractionsByMedium(interactions []api.Interaction) []MediumCount {
	groups := GroupBy(interactions, func(in api.Interaction) string {
		m := strings.ToLower(strings.TrimSpace(in.InteractionMedium))
		if m == "" {
			return "unknown"
		}
		return m
	})

	out := make([]MediumCount, 0, len(groups))
	for _, g := range groups {
		out = append(out, MediumCount{
			Medium:    g.Key,
			Count:     len(g.Items),
			DealValue: SumDealValue(g.Items),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Medium < out[j].Medium
	})
	return out
}

type Totals struct {
	Emails     int
	VoiceCalls int
	Total      int
}

// FrequencyTotals 汇总每日互动次数
func FrequencyTotals(freq []api.InteractionFrequency) Totals {
	var t Totals
	for _, f := range freq {
		t.Emails += f.Emails
		t.VoiceCalls += f.VoiceCalls
		t.Total += f.Total
	}
	return t
}
