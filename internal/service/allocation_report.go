package service

import (
	"sort"

	"github.com/KirtanKRP/chrono-campus-app/internal/dto"
)

// ── 分配报告构建 ──
//
// 纯函数：将求解结果物化为运行汇总（每门课的录取名单与填充率），
// 不修改任何输入。

// buildAllocationReport 构建运行汇总
// electiveCodes: elective_id → code，仅用于展示
func buildAllocationReport(res *solveResult, in solveInput, electiveCodes map[string]string) dto.AllocationSummary {
	summary := dto.AllocationSummary{
		TotalStudents: len(res.Assignments) + len(res.Unallocated),
		Allocated:     len(res.Assignments),
		Unallocated:   len(res.Unallocated),
	}

	// CGPA 索引用于录取名单排序
	cgpa := make(map[string]float64, len(in.Students))
	for _, st := range in.Students {
		cgpa[st.ID] = st.CGPA
	}

	admitted := make(map[string][]string) // elective_id → 录取学生
	for _, a := range res.Assignments {
		admitted[a.ElectiveID] = append(admitted[a.ElectiveID], a.StudentID)
	}

	// 快照中的每门课都出现在报告里，包括容量为 0 或无人录取的
	electiveIDs := make([]string, 0, len(in.Capacities))
	for id := range in.Capacities {
		electiveIDs = append(electiveIDs, id)
	}
	sort.Strings(electiveIDs)

	for _, id := range electiveIDs {
		ids := admitted[id]
		sort.Slice(ids, func(a, b int) bool {
			if cgpa[ids[a]] != cgpa[ids[b]] {
				return cgpa[ids[a]] > cgpa[ids[b]]
			}
			return ids[a] < ids[b]
		})

		capacity := in.Capacities[id]
		ratio := 0.0
		if capacity > 0 {
			ratio = float64(len(ids)) / float64(capacity)
		}

		summary.PerElectiveFill = append(summary.PerElectiveFill, dto.PerElectiveFill{
			ElectiveID:   id,
			ElectiveCode: electiveCodes[id],
			Capacity:     capacity,
			Filled:       len(ids),
			FillRatio:    ratio,
			AdmittedIDs:  ids,
		})
	}

	return summary
}
