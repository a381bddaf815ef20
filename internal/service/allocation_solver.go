package service

import (
	"errors"
	"sort"
)

// ── 分配求解器 ──────────────────────────────────────────────
//
// 职责：在一次运行的内存工作集上计算志愿分配，纯函数，不触达存储。
//
// 算法：学生提议方延迟接受（deferred acceptance）
//   - 每轮所有未被暂录的学生向其当前志愿顺位的课程提议
//   - 课程在「现有暂录者 + 本轮提议者」中按 CGPA 降序录取至剩余容量，
//     CGPA 相同按 student_id 升序——结果与提交顺序、遍历顺序无关
//   - 被拒者顺位指针 +1，下一轮向下一志愿提议；被挤掉的暂录者同样回到提议队列
//   - 所有志愿耗尽仍未录取的学生记为显式“未分配”
//
// 稳定性：不存在 (学生, 课程) 对使双方都更倾向于彼此而非当前结果；
// 任何暂录学生只会被 CGPA 更高（或同分 id 更小）的提议者取代。
// ─────────────────────────────────────────────────────────────

var (
	ErrNegativeCapacity = errors.New("选修课容量为负数")
	ErrNonTermination   = errors.New("分配求解超出轮次上限")
)

// solverStudent 求解器视角的学生：标识、CGPA、有序志愿
type solverStudent struct {
	ID      string
	CGPA    float64
	Choices []string // 有序 elective_id，下标即志愿顺位-1
}

// solveInput 一次求解的完整输入快照
type solveInput struct {
	Students   []solverStudent
	Capacities map[string]int // elective_id → 容量（>= 0）
}

// solvedAssignment 单个学生的求解结果
type solvedAssignment struct {
	StudentID  string
	ElectiveID string
	Rank       int // 1 = 第一志愿
}

// solveResult 求解输出
type solveResult struct {
	Assignments []solvedAssignment // 按 student_id 升序
	Unallocated []string           // 所有志愿耗尽仍未录取的学生，按 student_id 升序
	Rounds      int
	Proposals   int
}

// solveAllocation 执行延迟接受求解
// 空输入（无学生或无课程）返回空但合法的结果，不视为错误
func solveAllocation(in solveInput) (*solveResult, error) {
	// 容量合法性（CapacityError）
	for _, capacity := range in.Capacities {
		if capacity < 0 {
			return nil, ErrNegativeCapacity
		}
	}

	// 学生按 id 升序建立工作集，保证确定性
	students := make([]solverStudent, len(in.Students))
	copy(students, in.Students)
	sort.Slice(students, func(i, j int) bool {
		return students[i].ID < students[j].ID
	})

	n := len(students)
	result := &solveResult{}
	if n == 0 || len(in.Capacities) == 0 {
		// 无学生或无课程：空结果合法；有学生无课程时全部显式未分配
		for _, st := range students {
			result.Unallocated = append(result.Unallocated, st.ID)
		}
		return result, nil
	}

	maxK := 0
	for _, st := range students {
		if len(st.Choices) > maxK {
			maxK = len(st.Choices)
		}
	}

	// ptr[i]: 学生 i 当前提议/持有的志愿下标；拒绝时 +1，只增不减 → 保证终止
	ptr := make([]int, n)
	assigned := make([]bool, n)

	// holders: elective_id → 暂录学生下标集合
	holders := make(map[string][]int)

	// 防御性轮次上限（§ 非终止检查）：理论上界为 N×K 次提议
	roundCap := 2*maxK*n + 1

	for {
		// 收集本轮提议：所有未暂录且仍有未试志愿的学生
		proposals := make(map[string][]int)
		pending := false
		for i := 0; i < n; i++ {
			if assigned[i] || ptr[i] >= len(students[i].Choices) {
				continue
			}
			electiveID := students[i].Choices[ptr[i]]
			if _, known := in.Capacities[electiveID]; !known {
				// 快照中不存在的课程视作容量 0：直接落到下一志愿
				ptr[i]++
				result.Proposals++
				pending = true
				continue
			}
			proposals[electiveID] = append(proposals[electiveID], i)
			result.Proposals++
			pending = true
		}

		if !pending {
			break
		}

		result.Rounds++
		if result.Rounds > roundCap {
			return nil, ErrNonTermination
		}

		// 课程逐一裁决：现有暂录者 + 提议者合并后按偏好排序，留下前 capacity 名
		for electiveID, proposers := range proposals {
			candidates := append([]int{}, holders[electiveID]...)
			candidates = append(candidates, proposers...)

			sort.Slice(candidates, func(a, b int) bool {
				sa, sb := students[candidates[a]], students[candidates[b]]
				if sa.CGPA != sb.CGPA {
					return sa.CGPA > sb.CGPA
				}
				return sa.ID < sb.ID
			})

			capacity := in.Capacities[electiveID]
			keep := capacity
			if keep > len(candidates) {
				keep = len(candidates)
			}

			holders[electiveID] = candidates[:keep]
			for _, idx := range candidates[:keep] {
				assigned[idx] = true
			}
			// 被拒者（含被挤掉的原暂录者）回到队列，指向下一志愿
			for _, idx := range candidates[keep:] {
				assigned[idx] = false
				ptr[idx]++
			}
		}
	}

	// 暂录即终录
	for i := 0; i < n; i++ {
		if assigned[i] {
			result.Assignments = append(result.Assignments, solvedAssignment{
				StudentID:  students[i].ID,
				ElectiveID: students[i].Choices[ptr[i]],
				Rank:       ptr[i] + 1,
			})
		} else {
			result.Unallocated = append(result.Unallocated, students[i].ID)
		}
	}

	return result, nil
}
