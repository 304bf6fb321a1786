// Package config загружает конфигурацию хоста из YAML.
//
// Конфигурация описывает топологию доставки: stores, endpoints,
// sequences и процессоры с их параметрами. Адреса внешних систем
// (Postgres, RabbitMQ, Redis) задаются переменными окружения, не
// файлом.
//
// Отсутствующий файл — не ошибка: хост поднимается с дефолтной
// конфигурацией (один memory store, без процессоров).
package config
