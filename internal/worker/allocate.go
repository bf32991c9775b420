package worker

// Allocate возвращает долю items для исполнителя index из workers.
// Если исполнителей не больше, чем элементов, элементы делятся на почти
// равные непрерывные части. Иначе каждому исполнителю достаётся один
// элемент, выбранный по кругу.
func Allocate[T any](items []T, workers, index int) []T {
	n := len(items)
	if n == 0 || workers <= 0 || index < 0 || index >= workers {
		return nil
	}
	if workers <= n {
		return items[index*n/workers : (index+1)*n/workers]
	}
	i := index % n
	return items[i : i+1]
}
